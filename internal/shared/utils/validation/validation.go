// Package validation registers the custom binding rules used by request DTOs.
package validation

import (
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	seatLabelPattern = regexp.MustCompile(`^[1-9][0-9]{0,2}[A-K]$`)
	iataPattern      = regexp.MustCompile(`^[A-Z]{3}$`)
	requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9_\-:.]{1,64}$`)

	registerOnce sync.Once
	registerErr  error
)

// Register installs the custom rules on gin's validator engine. Safe to call more than once.
func Register() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		registerErr = RegisterOn(v)
	})
	return registerErr
}

// RegisterOn installs the custom rules on v.
func RegisterOn(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"seatlabel": func(fl validator.FieldLevel) bool {
			return IsSeatLabel(fl.Field().String())
		},
		"iata": func(fl validator.FieldLevel) bool {
			return iataPattern.MatchString(strings.ToUpper(fl.Field().String()))
		},
		"requestid": func(fl validator.FieldLevel) bool {
			return IsRequestID(fl.Field().String())
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// IsSeatLabel reports whether s looks like a cabin seat label such as "12C".
func IsSeatLabel(s string) bool {
	return seatLabelPattern.MatchString(s)
}

// IsRequestID reports whether s is usable as a client idempotency key.
func IsRequestID(s string) bool {
	return requestIDPattern.MatchString(s)
}
