package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/iudanet/keepvault/internal/models"
)

// controlChars находит управляющие символы, недопустимые в именах полей и групп
var controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)

const (
	// MaxFieldNameLen максимальная длина имени пользовательского поля
	MaxFieldNameLen = 256
	// MinTransformRounds минимальное число раундов AES-KDF
	MinTransformRounds = 1
)

// ValidateFieldName проверяет имя пользовательского поля записи.
// Стандартные имена (Title, UserName, Password, URL, Notes) зарезервированы
func ValidateFieldName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("field name cannot be empty")
	}

	if len(name) > MaxFieldNameLen {
		return fmt.Errorf("field name must not exceed %d characters", MaxFieldNameLen)
	}

	if controlChars.MatchString(name) {
		return fmt.Errorf("field name cannot contain control characters")
	}

	if models.IsStandardField(name) {
		return fmt.Errorf("field name %q is reserved", name)
	}

	return nil
}

// ValidateGroupPath проверяет путь группы вида "Work/Servers".
// Пустой путь означает корневую группу
func ValidateGroupPath(path string) error {
	if path == "" {
		return nil
	}

	for _, part := range strings.Split(path, "/") {
		if strings.TrimSpace(part) == "" {
			return fmt.Errorf("group path %q contains an empty segment", path)
		}
		if controlChars.MatchString(part) {
			return fmt.Errorf("group name cannot contain control characters")
		}
	}

	return nil
}

// ValidateRounds проверяет число раундов преобразования ключа
func ValidateRounds(rounds uint64) error {
	if rounds < MinTransformRounds {
		return fmt.Errorf("transform rounds must be at least %d", MinTransformRounds)
	}
	return nil
}

// ValidatePassword проверяет master password.
// Пустой пароль допустим только вместе с файлом ключа
func ValidatePassword(password string, hasKeyFile bool) error {
	if password == "" && !hasKeyFile {
		return fmt.Errorf("password cannot be empty without a key file")
	}
	return nil
}
