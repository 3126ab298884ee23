package pkg

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// NormalizeCurrency приводит код валюты к верхнему регистру
func NormalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

// ValidateAmount проверяет, что сумма конечная и положительная
func ValidateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("amount must be a finite number")
	}
	if amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	return nil
}

// FormatRate форматирует курс для вывода
func FormatRate(rate float64) string {
	return fmt.Sprintf("%.4f", rate)
}

// FormatChange форматирует изменение курса со знаком
func FormatChange(change float64) string {
	if change > 0 {
		return fmt.Sprintf("+%.4f", change)
	}
	return fmt.Sprintf("%.4f", change)
}

// FormatDuration форматирует duration в удобочитаемый формат
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.2fm", d.Minutes())
	}
	return fmt.Sprintf("%.2fh", d.Hours())
}
