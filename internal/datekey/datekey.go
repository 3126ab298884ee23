// Package datekey реализует кодек дат наблюдений: целочисленный ключ
// (номер дня от 1970-01-01) и его текстовые формы dd/mm/yyyy и yyyy-mm-dd.
package datekey

import (
	"time"

	"gw-currency-rates/internal/apperrors"
)

const (
	// DisplayLayout формат хранения и отображения
	DisplayLayout = "02/01/2006"
	// ISOLayout формат ISO 8601 для диапазонов
	ISOLayout = "2006-01-02"

	secondsPerDay = 24 * 60 * 60
)

// Key календарная дата без времени
type Key int64

// Min и Max границы открытых диапазонов
var (
	Min = FromTime(time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC))
	Max = FromTime(time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC))
)

// ParseDisplay разбирает дату в формате dd/mm/yyyy
func ParseDisplay(s string) (Key, error) {
	return parse(DisplayLayout, s)
}

// ParseISO разбирает дату в формате yyyy-mm-dd
func ParseISO(s string) (Key, error) {
	return parse(ISOLayout, s)
}

func parse(layout, s string) (Key, error) {
	// time.Parse отвергает несуществующие дни (31/04, 29/02 в невисокосный год)
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, apperrors.NewFormatError("invalid date %q, expected %s", s, humanLayout(layout))
	}
	return FromTime(t), nil
}

func humanLayout(layout string) string {
	if layout == ISOLayout {
		return "yyyy-mm-dd"
	}
	return "dd/mm/yyyy"
}

// FromTime отбрасывает время суток и возвращает ключ календарного дня t
func FromTime(t time.Time) Key {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return Key(floorDiv(midnight.Unix(), secondsPerDay))
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Time возвращает полночь дня в UTC
func (k Key) Time() time.Time {
	return time.Unix(int64(k)*secondsPerDay, 0).UTC()
}

// Display форматирует ключ как dd/mm/yyyy
func (k Key) Display() string {
	return k.Time().Format(DisplayLayout)
}

// ISO форматирует ключ как yyyy-mm-dd
func (k Key) ISO() string {
	return k.Time().Format(ISOLayout)
}

// String использует форму отображения
func (k Key) String() string {
	return k.Display()
}

// MarshalText кодирует ключ в форме dd/mm/yyyy
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.Display()), nil
}

// UnmarshalText принимает обе текстовые формы
func (k *Key) UnmarshalText(text []byte) error {
	s := string(text)
	parsed, err := ParseDisplay(s)
	if err != nil {
		if parsed, err = ParseISO(s); err != nil {
			return apperrors.NewFormatError("invalid date %q, expected dd/mm/yyyy or yyyy-mm-dd", s)
		}
	}
	*k = parsed
	return nil
}

// AddDays сдвигает дату на n календарных дней
func (k Key) AddDays(n int) Key {
	return k + Key(n)
}

// Before сообщает, что k раньше other
func (k Key) Before(other Key) bool {
	return Compare(k, other) < 0
}

// After сообщает, что k позже other
func (k Key) After(other Key) bool {
	return Compare(k, other) > 0
}

// Compare возвращает -1, 0 или 1 для порядка "раньше", "тот же день", "позже"
func Compare(a, b Key) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Today ключ текущего дня в указанной зоне
func Today(loc *time.Location) Key {
	return FromTime(time.Now().In(loc))
}
