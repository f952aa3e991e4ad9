package store

// prefixEnd() returns the smallest key that is lexicographically above every key beginning with prefix
// nil means there is no such key
func prefixEnd(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for len(end) > 0 {
		if end[len(end)-1] != 0xFF {
			end[len(end)-1]++
			return end
		}
		end = end[:len(end)-1]
	}
	return nil
}

// prefixed() returns a new slice of prefix followed by key
func prefixed(prefix, key []byte) []byte {
	out := make([]byte, 0, len(prefix)+len(key))
	return append(append(out, prefix...), key...)
}
