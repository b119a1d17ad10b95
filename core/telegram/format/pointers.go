package format

// DerefString safely dereferences a *string and returns a default value if nil.
func DerefString(s *string, defaultVal string) string {
	if s != nil {
		return *s
	}
	return defaultVal
}

// StringPtr returns nil for blank input.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
