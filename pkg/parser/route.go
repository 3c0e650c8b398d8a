package parser

import (
	"fmt"
	"net/url"
	"strings"

	"hop-convert/pkg/convert"
)

const convertPrefix = "/convert"

// ParseRoute rebuilds a conversion route from an app link such as
// "/convert/amm?fromHToken=true" or "https://app.hop.exchange/#/convert/hop".
// The via parameter is the path segment after /convert.
func ParseRoute(raw string) (convert.Route, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return convert.Route{}, fmt.Errorf("invalid route %q: %w", raw, err)
	}

	// hash routers keep the app path in the fragment
	if strings.HasPrefix(u.Fragment, "/") {
		u, err = url.Parse(u.Fragment)
		if err != nil {
			return convert.Route{}, fmt.Errorf("invalid route %q: %w", raw, err)
		}
	}

	path := strings.TrimRight(u.Path, "/")
	if path != convertPrefix && !strings.HasPrefix(path, convertPrefix+"/") {
		return convert.Route{}, fmt.Errorf("not a convert route: %q", raw)
	}

	via, _, _ := strings.Cut(strings.TrimPrefix(path[len(convertPrefix):], "/"), "/")

	return convert.Route{
		Pathname: path,
		Via:      via,
		ToHToken: u.Query().Get("fromHToken") != "true",
	}, nil
}
