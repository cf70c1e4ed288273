package notation

// EncodeEndpoint renders endpoint index n as a placeholder token.
//
// The final character is a lowercase letter carrying n mod 26. Larger
// values are escaped with an uppercase prefix in bijective base 26, so
// 25 is "z", 26 is "Aa" and 701 is "Zz".
func EncodeEndpoint(n int) string {
	buf := []byte{byte('a' + n%26)}
	return string(prefix(n/26, buf))
}

// EncodeBackRef renders a back-reference distance k (k >= 1).
//
// The final character is a digit carrying k mod 10, larger values use the
// same uppercase prefix as endpoints: 9 is "9", 10 is "A0".
func EncodeBackRef(k int) string {
	buf := []byte{byte('0' + k%10)}
	return string(prefix(k/10, buf))
}

// prefix prepends the bijective base-26 uppercase rendering of n.
func prefix(n int, tail []byte) []byte {
	var head []byte
	for n > 0 {
		n--
		head = append(head, byte('A'+n%26))
		n /= 26
	}
	for i, j := 0, len(head)-1; i < j; i, j = i+1, j-1 {
		head[i], head[j] = head[j], head[i]
	}
	return append(head, tail...)
}
