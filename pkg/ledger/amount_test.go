package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_ParseAmount(t *testing.T) {
	type testCase struct {
		name   string
		value  string
		assert func(t *testing.T, got int64, err error)
	}
	tests := []testCase{
		{
			name:  "regular amount",
			value: "12.34",
			assert: func(t *testing.T, got int64, err error) {
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, int64(1234), got)
			},
		},
		{
			name:  "whole amount",
			value: "100",
			assert: func(t *testing.T, got int64, err error) {
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, int64(10000), got)
			},
		},
		{
			name:  "negative amount",
			value: "-0.5",
			assert: func(t *testing.T, got int64, err error) {
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, int64(-50), got)
			},
		},
		{
			name:  "too many decimal places",
			value: "1.999",
			assert: func(t *testing.T, got int64, err error) {
				if !assert.Error(t, err) {
					return
				}
				assert.Equal(t, CodeInvalidAmount, CodeOf(err))
			},
		},
		{
			name:  "not a number",
			value: "ten",
			assert: func(t *testing.T, got int64, err error) {
				if !assert.Error(t, err) {
					return
				}
				assert.Equal(t, CodeInvalidAmount, CodeOf(err))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.value)
			tt.assert(t, got, err)
		})
	}
}

func Test_FormatAmount(t *testing.T) {
	assert.Equal(t, "12.34", FormatAmount(1234))
	assert.Equal(t, "-0.50", FormatAmount(-50))
	assert.Equal(t, "0.00", FormatAmount(0))
	assert.Equal(t, "100.00", FormatAmount(10000))
}
