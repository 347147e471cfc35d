package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// MaxCount caps the DHIS2 page size a client may request.
const MaxCount = 1000

// Params holds the paging parameters of a FHIR search. Zero means "use the
// server default" for Count and "no limit" for MaxPages.
type Params struct {
	Count    int
	MaxPages int
}

// InvalidParamError reports a paging parameter that is not a positive integer.
type InvalidParamError struct {
	Name  string
	Value string
}

func (e *InvalidParamError) Error() string {
	return "invalid value for " + e.Name + ": " + strconv.Quote(e.Value)
}

// FromContext extracts _count and _maxpages from the echo context.
func FromContext(c echo.Context) (Params, error) {
	var p Params
	var err error
	if p.Count, err = positive(c, "_count"); err != nil {
		return p, err
	}
	if p.Count > MaxCount {
		p.Count = MaxCount
	}
	if p.MaxPages, err = positive(c, "_maxpages"); err != nil {
		return p, err
	}
	return p, nil
}

func positive(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, &InvalidParamError{Name: name, Value: raw}
	}
	return n, nil
}
