package utils

import (
	"github.com/bytedance/sonic"
)

// ToJSONBytes 将对象转换为JSON字节数组
func ToJSONBytes(v any) ([]byte, error) {
	return sonic.Marshal(v)
}

// ToJSONPretty 将对象转换为格式化的JSON字节数组
func ToJSONPretty(v any) ([]byte, error) {
	return sonic.MarshalIndent(v, "", "  ")
}

// FromJSONBytes 将JSON字节数组转换为对象
func FromJSONBytes[T any](data []byte) (T, error) {
	var v T
	err := sonic.Unmarshal(data, &v)
	return v, err
}
