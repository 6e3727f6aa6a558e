package auth

import "strings"

// Allowlist статический список абонентов, которым разрешён доступ к сервису.
// Формируется один раз на старте и дальше только читается, поэтому
// блокировок не требует. Пустой список не пропускает никого.
type Allowlist struct {
	numbers map[string]struct{}
}

// NewAllowlist создаёт список из номеров, нормализуя пробелы
// и пропуская пустые элементы.
func NewAllowlist(numbers []string) *Allowlist {
	set := make(map[string]struct{}, len(numbers))
	for _, number := range numbers {
		if trimmed := strings.TrimSpace(number); trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return &Allowlist{numbers: set}
}

// Allowed сообщает, входит ли номер в список.
func (a *Allowlist) Allowed(number string) bool {
	_, ok := a.numbers[strings.TrimSpace(number)]
	return ok
}

// Size возвращает количество номеров в списке.
func (a *Allowlist) Size() int {
	return len(a.numbers)
}
