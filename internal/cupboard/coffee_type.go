package cupboard

import (
	"strings"

	"github.com/pkg/errors"
)

// CoffeeType 定义咖啡豆品种
// 以 _CREMA 结尾的品种需要萃取油脂 (crema)，只有意式咖啡机支持
type CoffeeType string

const (
	Arabica      CoffeeType = "ARABICA"
	Robusta      CoffeeType = "ROBUSTA"
	Moka         CoffeeType = "MOKA"
	Bahia        CoffeeType = "BAHIA"
	ArabicaCrema CoffeeType = "ARABICA_CREMA"
	RobustaCrema CoffeeType = "ROBUSTA_CREMA"
	MokaCrema    CoffeeType = "MOKA_CREMA"
	BahiaCrema   CoffeeType = "BAHIA_CREMA"
)

// ErrUnknownCoffeeType 表示无法识别的咖啡品种
var ErrUnknownCoffeeType = errors.New("unknown coffee type")

var knownTypes = map[CoffeeType]bool{
	Arabica:      false,
	Robusta:      false,
	Moka:         false,
	Bahia:        false,
	ArabicaCrema: true,
	RobustaCrema: true,
	MokaCrema:    true,
	BahiaCrema:   true,
}

// RequiresCrema 判断该品种是否需要 crema 能力
func (t CoffeeType) RequiresCrema() bool {
	return knownTypes[t]
}

func (t CoffeeType) String() string {
	return string(t)
}

// ParseCoffeeType 解析外部输入 (HTTP / CLI) 中的品种名称，大小写不敏感
func ParseCoffeeType(s string) (CoffeeType, error) {
	t := CoffeeType(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := knownTypes[t]; !ok {
		return "", errors.Wrapf(ErrUnknownCoffeeType, "%q", s)
	}
	return t, nil
}
