// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"tokenomics/internal/services"
)

var ethAddressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

var signatureRegex = regexp.MustCompile(`^(0x)?[0-9a-fA-F]{130}$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("eth_address", validateEthAddress)
		_ = v.RegisterValidation("eth_signature", validateEthSignature)
		_ = v.RegisterValidation("caller_role", validateCallerRole)
	}
}

func validateEthAddress(fl validator.FieldLevel) bool {
	return ethAddressRegex.MatchString(fl.Field().String())
}

func validateEthSignature(fl validator.FieldLevel) bool {
	return signatureRegex.MatchString(fl.Field().String())
}

func validateCallerRole(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case services.RoleUser, services.RoleBackend, services.RoleAdmin:
		return true
	}
	return false
}
