package principal_test

import (
	"errors"
	"testing"

	"github.com/maxatome/go-testdeep/td"
	"github.com/stewi1014/didl/encio"
	"github.com/stewi1014/didl/principal"
)

func TestText(t *testing.T) {
	testCases := []struct {
		id   principal.ID
		text string
	}{
		{principal.Management, "aaaaa-aa"},
		{principal.Anonymous, "2vxsx-fae"},
		{principal.ID{0xab, 0xcd, 0x01}, "em77e-bvlzu-aq"},
		{principal.ID{0, 0, 0, 0, 0, 0, 0, 7, 1, 1}, "rdmx6-jaaaa-aaaaa-aaadq-cai"},
	}

	for _, tC := range testCases {
		t.Run(tC.text, func(t *testing.T) {
			td.Cmp(t, tC.id.String(), tC.text)

			id, err := principal.ParseText(tC.text)
			td.CmpNoError(t, err)
			td.Cmp(t, id.Equal(tC.id), true)
		})
	}
}

func TestParseTextErrors(t *testing.T) {
	testCases := []string{
		"",
		"not base32!",
		"aaaaa-ab",
		"em77e-bvlzu-aa",
		"EM77E-BVLZU-AQ",
	}

	for _, tC := range testCases {
		t.Run(tC, func(t *testing.T) {
			_, err := principal.ParseText(tC)
			td.Cmp(t, errors.Is(err, encio.ErrMalformed), true, "got %v", err)
		})
	}
}
