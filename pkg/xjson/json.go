package xjson

import "encoding/json"

// Encode 序列化为 JSON 文本，返回序列化错误
func Encode(v any) (string, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Decode 将 JSON 文本反序列化到 v
func Decode(s string, v any) error {
	return json.Unmarshal([]byte(s), v)
}
