package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/robfig/cron/v3"

	"livekeeper/internal/schedule"
)

var (
	vOnce  sync.Once
	vInst  *validator.Validate
	vTrans ut.Translator
)

// validatorInstance returns the shared validator. Messages use yaml key
// names so they match what the operator wrote.
func validatorInstance() (*validator.Validate, ut.Translator) {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("yaml")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
		_ = en_translations.RegisterDefaultTranslations(v, trans)

		vInst, vTrans = v, trans
	})
	return vInst, vTrans
}

// Validate checks field constraints, the weekly rule and the reconcile cron
// expression. All violations are reported together.
func (c *Config) Validate() error {
	v, trans := validatorInstance()

	var problems []string
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("config: %w", err)
		}
		for _, fe := range verrs {
			problems = append(problems, fmt.Sprintf("%s: %s", yamlPath(fe), fe.Translate(trans)))
		}
	}

	s := c.Scheduling
	if _, err := schedule.ParseRule(s.DayOfWeek, s.Time, s.Timezone); err != nil {
		problems = append(problems, "scheduling: "+err.Error())
	}
	if s.ReconcileCron != "" {
		if _, err := cron.ParseStandard(s.ReconcileCron); err != nil {
			problems = append(problems, fmt.Sprintf("scheduling.reconcile_cron: %v", err))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// yamlPath turns "Config.scheduling.time" into "scheduling.time".
func yamlPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
