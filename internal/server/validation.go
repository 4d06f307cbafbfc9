package server

import (
	"studiopass/internal/catalog"
	"studiopass/internal/event"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators installs the domain validations referenced by request
// DTO binding tags, so malformed enums and schedule specs are rejected at
// bind time instead of deep inside a sale transaction.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	v.RegisterValidation("accesstype", func(fl validator.FieldLevel) bool {
		return catalog.AccessType(fl.Field().String()).Valid()
	})
	v.RegisterValidation("billingcycle", func(fl validator.FieldLevel) bool {
		return catalog.BillingCycle(fl.Field().String()).Valid()
	})
	v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		_, err := event.ParseWeekday(fl.Field().String())
		return err == nil
	})
	v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, _, err := event.ParseClock(fl.Field().String())
		return err == nil
	})
}
