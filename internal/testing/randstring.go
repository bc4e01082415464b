package testing

import (
	"math/rand"
	"strings"
)

// RandString generates random string with 10 symbols length from lowercase alphabet,
// the result is safe to use as a postgres identifier
func RandString() string {
	var out strings.Builder
	charSet := "abcdefghijklmnopqrstuvwxyz"
	length := 10
	for i := 0; i < length; i++ {
		random := rand.Intn(len(charSet))
		out.WriteByte(charSet[random])
	}
	return out.String()
}
