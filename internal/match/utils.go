// internal/match/utils.go
package match

// intField pulls an integer out of a JSON-decoded payload, where
// numbers usually arrive as float64.
func intField(payload map[string]interface{}, key string) (int, bool) {
	if payload == nil {
		return 0, false
	}
	switch v := payload[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}
