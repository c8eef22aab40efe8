package store

import (
	"github.com/wsx864321/kstore/pkg/xerr"
	"github.com/wsx864321/kstore/pkg/xjson"
)

// Kind 值类型
type Kind uint8

const (
	// KindText 原样存储的文本
	KindText Kind = iota
	// KindJSON 写入前序列化为 JSON 文本的结构化数据
	KindJSON
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindJSON:
		return "json"
	default:
		return "unknown"
	}
}

// Value 写入 Redis 的值，只能通过 Text 或 JSON 构造
type Value struct {
	kind Kind
	text string
	data any
}

// Text 构造文本值
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Texts 批量构造文本值，常用于 RPush
func Texts(ss ...string) []Value {
	values := make([]Value, 0, len(ss))
	for _, s := range ss {
		values = append(values, Text(s))
	}
	return values
}

// JSON 构造结构化值，写入时序列化为 JSON
func JSON(v any) Value {
	return Value{kind: KindJSON, data: v}
}

func (v Value) Kind() Kind {
	return v.kind
}

// Encode 返回写入 Redis 的文本
func (v Value) Encode() (string, error) {
	if v.kind == KindText {
		return v.text, nil
	}
	s, err := xjson.Encode(v.data)
	if err != nil {
		return "", xerr.ErrInvalidValue.WithCause(err)
	}
	return s, nil
}

func encodeAll(values []Value) ([]any, error) {
	args := make([]any, 0, len(values))
	for _, v := range values {
		s, err := v.Encode()
		if err != nil {
			return nil, err
		}
		args = append(args, s)
	}
	return args, nil
}
