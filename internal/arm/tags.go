package arm

import "strings"

// ParseTags разбирает значения "key=value"; ключ без "=" получает пустое значение.
// Пустой список дает пустую карту, что очищает теги ресурса.
func ParseTags(values []string) map[string]string {
	tags := make(map[string]string, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		kv := strings.SplitN(v, "=", 2)
		if len(kv) == 1 {
			tags[kv[0]] = ""
			continue
		}
		tags[kv[0]] = kv[1]
	}
	return tags
}
