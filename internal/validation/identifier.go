package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// DeviceIDPattern определяет допустимый формат идентификатора устройства
// Латинские буквы, цифры, '_', '-', '.'; длина 1-64 символа.
// Двоеточие запрещено: оно разделяет части составного id изменения.
var DeviceIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,64}$`)

// ResourceTypePattern определяет допустимый формат типа ресурса (например, "tab", "bookmark")
var ResourceTypePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,31}$`)

const (
	// MaxResourceIDLen максимальная длина идентификатора ресурса
	MaxResourceIDLen = 256
)

// ValidateDeviceID проверяет идентификатор устройства
func ValidateDeviceID(deviceID string) error {
	if deviceID == "" {
		return fmt.Errorf("device id cannot be empty")
	}

	if !DeviceIDPattern.MatchString(deviceID) {
		return fmt.Errorf("device id can only contain letters, numbers, '_', '-' and '.' (max 64 characters)")
	}

	return nil
}

// ValidateResourceType проверяет тип ресурса
func ValidateResourceType(resourceType string) error {
	if resourceType == "" {
		return fmt.Errorf("resource type cannot be empty")
	}

	if !ResourceTypePattern.MatchString(resourceType) {
		return fmt.Errorf("resource type must start with a lowercase letter and contain only a-z, 0-9, '_' or '-' (max 32 characters)")
	}

	return nil
}

// ValidateResourceID проверяет идентификатор ресурса
// Идентификатор непрозрачен, но не может содержать '/' и управляющие символы
func ValidateResourceID(resourceID string) error {
	if resourceID == "" {
		return fmt.Errorf("resource id cannot be empty")
	}

	if len(resourceID) > MaxResourceIDLen {
		return fmt.Errorf("resource id must not exceed %d characters", MaxResourceIDLen)
	}

	if strings.Contains(resourceID, "/") {
		return fmt.Errorf("resource id cannot contain '/'")
	}

	for _, r := range resourceID {
		if unicode.IsControl(r) {
			return fmt.Errorf("resource id cannot contain control characters")
		}
	}

	return nil
}

// ValidateResource проверяет пару (resourceID, resourceType)
func ValidateResource(resourceID, resourceType string) error {
	if err := ValidateResourceType(resourceType); err != nil {
		return err
	}
	return ValidateResourceID(resourceID)
}
