package freeplacesdispatch

// GetInputSchema describes the job variables. Per-item parameters are not
// checked here; a missing one fails only its own item.
func GetInputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"items"},
		"properties": map[string]interface{}{
			"operation": map[string]interface{}{
				"type":      "string",
				"minLength": 1,
			},
			"continueOnFail": map[string]interface{}{"type": "boolean"},
			"fanOutArrays":   map[string]interface{}{"type": "boolean"},
			"parameters":     map[string]interface{}{"type": "object"},
			"items": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "object"},
			},
		},
	}
}
