package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money хранит сумму в минимальных денежных единицах (центавы реала).
type Money int64

// MoneyFromReais переводит целые реалы и центавы в Money.
func MoneyFromReais(reais, centavos int64) Money {
	return Money(reais*100 + centavos)
}

// String форматирует сумму в виде "R$ 25,00".
func (m Money) String() string {
	if m < 0 {
		return "-R$ " + (-m).Decimal()
	}
	return "R$ " + m.Decimal()
}

// Decimal возвращает сумму без символа валюты: "25,00".
func (m Money) Decimal() string {
	v := int64(m)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d,%02d", sign, v/100, v%100)
}

// Times умножает цену на количество.
func (m Money) Times(qty int) Money {
	return m * Money(qty)
}

// maxReais: наибольшая целая часть, при которой reais*100+99 помещается в int64.
const maxReais = (math.MaxInt64 - 99) / 100

// ParseMoney разбирает пользовательский ввод: "25", "25.5", "25,50", "R$ 25,00".
func ParseMoney(raw string) (Money, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(strings.TrimPrefix(s, "R$"))
	if s == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, raw)
	}
	s = strings.Replace(s, ",", ".", 1)

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || (hasFrac && (!isDigits(frac) || len(frac) == 0 || len(frac) > 2)) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, raw)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	reais, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || reais > maxReais {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, raw)
	}
	centavos, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, raw)
	}
	return MoneyFromReais(reais, centavos), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
