package protocol

import "strings"

// Kind - тип полезной нагрузки сообщения. Набор закрыт версией протокола.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindActionReplay
	KindWalkTo
	KindContinue
)

// Маппинг для конвертации JSON -> Kind.
// Строки совпадают с тем, что шлёт хост-плагин.
var kindStringToKind = map[string]Kind{
	"MENU_ACTION":     KindActionReplay,
	"WALK_WORLD":      KindWalkTo,
	"DIALOG_CONTINUE": KindContinue,
}

// Маппинг для логов Kind -> String
var kindToString = map[Kind]string{
	KindActionReplay: "MENU_ACTION",
	KindWalkTo:       "WALK_WORLD",
	KindContinue:     "DIALOG_CONTINUE",
}

// ParseKind конвертирует строку из JSON в Kind.
func ParseKind(s string) Kind {
	// Нечувствительно к регистру, как и раньше с экшенами
	upper := strings.ToUpper(strings.TrimSpace(s))
	if val, ok := kindStringToKind[upper]; ok {
		return val
	}
	return KindUnknown
}

// String реализует интерфейс Stringer (для логов и fmt)
func (k Kind) String() string {
	if val, ok := kindToString[k]; ok {
		return val
	}
	return "UNKNOWN"
}
