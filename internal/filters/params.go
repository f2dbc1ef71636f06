package filters

// Params represents decode parameters from PDF stream dictionaries.
// Common parameters include Predictor, Columns, Colors, and BitsPerComponent.
type Params map[string]interface{}

// getIntParam extracts an integer parameter from Params, returning defaultValue
// if the parameter is missing or cannot be converted to an integer.
func getIntParam(params Params, key string, defaultValue int) int {
	if params == nil {
		return defaultValue
	}

	obj, ok := params[key]
	if !ok {
		return defaultValue
	}

	// Handle various integer types
	switch v := obj.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case float64:
		return int(v)
	default:
		return defaultValue
	}
}

// getBoolParam extracts a boolean parameter from Params, returning defaultValue
// if the parameter is missing or cannot be converted to a boolean.
func getBoolParam(params Params, key string, defaultValue bool) bool {
	if params == nil {
		return defaultValue
	}

	obj, ok := params[key]
	if !ok {
		return defaultValue
	}

	switch v := obj.(type) {
	case bool:
		return v
	default:
		return defaultValue
	}
}

// getNameParam extracts a name or string parameter. Names may be given with
// or without the leading slash.
func getNameParam(params Params, key string, defaultValue string) string {
	if params == nil {
		return defaultValue
	}
	v, ok := params[key].(string)
	if !ok || v == "" {
		return defaultValue
	}
	if v[0] == '/' {
		return v[1:]
	}
	return v
}

// Int returns the integer parameter key or def.
func (p Params) Int(key string, def int) int { return getIntParam(p, key, def) }

// Bool returns the boolean parameter key or def.
func (p Params) Bool(key string, def bool) bool { return getBoolParam(p, key, def) }

// Name returns the name parameter key or def.
func (p Params) Name(key string, def string) string { return getNameParam(p, key, def) }
