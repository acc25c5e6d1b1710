package cmd

import "strings"

const DEF_USER_AGENT = "WarpBundle/1.0"

// UserAgents maps the aliases accepted by --user-agent to full values.
var UserAgents = map[string]string{
	"warpbundle": DEF_USER_AGENT,
	"firefox":    "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/114.0",
	"chrome":     "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36",
}

func getUserAgent(s string) (ua string) {
	r, ok := UserAgents[strings.ToLower(s)]
	if !ok {
		ua = s
		return
	}
	ua = r
	return
}
