package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// LoadNumbersFile читает дополнительные номера allow-list из JSON-файла.
// Формат файла: JSON-массив строк. Отсутствующий файл — не ошибка:
// возвращается пустой список, список из окружения остаётся единственным
// источником.
func LoadNumbersFile(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("allowlist path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read allowlist file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var numbers []string
	if err := json.Unmarshal(data, &numbers); err != nil {
		return nil, fmt.Errorf("unmarshal allowlist file %s: %w", path, err)
	}
	return numbers, nil
}
