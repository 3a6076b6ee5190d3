package messaging

import "strings"

// ChatUser turns a stored phone number into the routing user part: one local
// trunk "0" is dropped and the country code is prepended (03123456 -> 9613123456).
func ChatUser(countryCode, phone string) string {
	phone = strings.TrimSpace(phone)
	phone = strings.TrimPrefix(phone, "0")
	return strings.TrimPrefix(countryCode, "+") + phone
}
