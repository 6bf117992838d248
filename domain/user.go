package domain

import "strconv"

// User is an account in the demo user registry, keyed by email.
type User struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"pwHash"`
}

// HashPassword is the demo credential digest: a 31*h+c rolling hash over
// 32-bit ints rendered in base 36. It is not a real password hash and
// provides no security; the whole auth layer is a demo convenience.
func HashPassword(s string) string {
	var h int32
	for _, c := range s {
		h = 31*h + int32(c)
	}
	return strconv.FormatInt(int64(h), 36)
}
