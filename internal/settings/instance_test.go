package settings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateInstanceName(t *testing.T) {
	testCases := []struct {
		name      string
		inputName string
		errMsg    string
	}{
		{name: "simple", inputName: "prod"},
		{name: "with hyphens and digits", inputName: "staging-1"},
		{name: "single character", inputName: "a"},
		{name: "exactly max length", inputName: strings.Repeat("a", MaxInstanceNameLength)},
		{name: "empty", inputName: "", errMsg: "cannot be empty"},
		{name: "uppercase", inputName: "Prod", errMsg: "must be lowercase"},
		{name: "leading hyphen", inputName: "-prod", errMsg: "not at start/end"},
		{name: "trailing hyphen", inputName: "prod-", errMsg: "not at start/end"},
		{name: "key separator", inputName: "prod:eu", errMsg: "must be lowercase alphanumeric"},
		{name: "underscore", inputName: "prod_env", errMsg: "must be lowercase alphanumeric"},
		{name: "too long", inputName: strings.Repeat("a", MaxInstanceNameLength+1), errMsg: "too long"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateInstanceName(tc.inputName)
			if tc.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.errMsg)
		})
	}
}
