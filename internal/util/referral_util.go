package util

import (
	"encoding/base64"
	"strconv"
)

// EncodeReferralCode turns a user id into the code shared in invite
// links.
func EncodeReferralCode(userId uint64) string {
	return base64.StdEncoding.EncodeToString([]byte(strconv.FormatUint(userId, 10)))
}

func DecodeReferralCode(code string) (uint64, error) {
	res, err := base64.StdEncoding.DecodeString(code)
	if err != nil {
		return 0, err
	}

	id, err := strconv.ParseUint(string(res), 10, 64)
	if err != nil {
		return 0, err
	}

	return id, nil
}
