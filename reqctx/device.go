package reqctx

import (
	"net/http"
	"strings"
)

var mobileTokens = []string{
	"mobile",
	"android",
	"silk/",
	"kindle",
	"blackberry",
	"opera mini",
	"opera mobi",
	"iphone",
	"ipod",
	"windows phone",
	"iemobile",
}

// DetectDevice classifies r as mobile from the Sec-CH-UA-Mobile client hint
// or well-known User-Agent tokens; everything else is desktop.
func DetectDevice(r *http.Request) Device {
	if r == nil {
		return DeviceDesktop
	}
	switch strings.TrimSpace(r.Header.Get("Sec-CH-UA-Mobile")) {
	case "?1":
		return DeviceMobile
	case "?0":
		return DeviceDesktop
	}
	ua := strings.ToLower(r.UserAgent())
	for _, token := range mobileTokens {
		if strings.Contains(ua, token) {
			return DeviceMobile
		}
	}
	return DeviceDesktop
}
