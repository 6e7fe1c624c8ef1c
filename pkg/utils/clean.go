package utils

import (
	"strings"
)

// CleanJsonBlock удаляет markdown-обёртку вокруг JSON.
//
// Модели иногда присылают аргументы tool call или JSON-ответ в виде
//
//	```json
//	{"key": "value"}
//	```
//
// Примеры:
//
//	```json {"a": 1} ``` → {"a": 1}
//	``` {"a": 1} ```     → {"a": 1}
func CleanJsonBlock(s string) string {
	s = strings.TrimSpace(s)

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```Json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	return strings.TrimSpace(s)
}

// ExtractJSON находит первый JSON-объект в тексте.
//
// Возвращает пустую строку если '{' не найден. Сбалансированность скобок
// проверяется без учёта строковых литералов, валидность JSON не проверяется.
func ExtractJSON(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}

	return s[start:]
}
