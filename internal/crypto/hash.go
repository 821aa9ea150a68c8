package crypto

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// HashValue вычисляет хеш содержимого ресурса.
// Значение сериализуется в канонический JSON (encoding/json сортирует ключи map),
// затем хешируется BLAKE2b-256. Одинаковые по содержимому значения
// дают одинаковый хеш независимо от порядка вставки ключей.
func HashValue(value any) (string, error) {
	canonical, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to marshal value for hashing: %w", err)
	}

	sum := blake2b.Sum256(canonical)

	// Возвращаем hex-encoded строку
	return hex.EncodeToString(sum[:]), nil
}

// VerifyHash проверяет, соответствует ли значение сохраненному хешу
func VerifyHash(value any, expected string) error {
	if expected == "" {
		return fmt.Errorf("expected hash cannot be empty")
	}

	computed, err := HashValue(value)
	if err != nil {
		return fmt.Errorf("failed to compute hash: %w", err)
	}

	if computed != expected {
		return fmt.Errorf("hash mismatch: expected %s, got %s", expected, computed)
	}

	return nil
}
