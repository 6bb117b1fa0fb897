package diag

import (
	"bytes"
	"context"
	"errors"
	"testing"

	tst "github.com/evgeny-myasishchev/ledger.bank-store/pkg/internal/testing"

	"github.com/bxcodec/faker/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func Test_logrusLogger_log(t *testing.T) {
	type args struct {
		ctx   context.Context
		level logrus.Level
		msg   string
		args  []interface{}
	}
	type testCase struct {
		name string
		args args
		want func(t *testing.T, actual map[string]interface{})
	}

	tests := []func() testCase{
		func() testCase {
			msg := faker.Sentence()
			return testCase{
				name: "regular msg",
				args: args{
					msg:   msg,
					level: logrus.InfoLevel,
					args:  []interface{}{},
				},
				want: func(t *testing.T, actual map[string]interface{}) {
					assert.Equal(t, msg, actual["msg"])
					assert.Equal(t, float64(1), actual["v"])
				},
			}
		},
		func() testCase {
			return testCase{
				name: "formatted msg",
				args: args{
					msg:   "Formatted msg %s",
					args:  []interface{}{"val1"},
					level: logrus.InfoLevel,
				},
				want: func(t *testing.T, actual map[string]interface{}) {
					assert.Equal(t, "Formatted msg val1", actual["msg"])
				},
			}
		},
		func() testCase {
			requestID := faker.Word()
			ctx := ContextWithRequestID(context.Background(), requestID)
			return testCase{
				name: "with requestID from context",
				args: args{
					ctx:   ctx,
					msg:   "Some msg",
					level: logrus.InfoLevel,
				},
				want: func(t *testing.T, actual map[string]interface{}) {
					if data, ok := actual["context"]; ok {
						contextData := data.(map[string]interface{})
						assert.Equal(t, requestID, contextData["requestID"], "Should have requestID added as context data")
					} else {
						assert.Fail(t, "Should add context")
					}
				},
			}
		},
	}
	for _, ttFn := range tests {
		tt := ttFn()
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			logger := newLogrusLogger(&out)
			logger.target.Level = tt.args.level
			logger.log(tt.args.ctx, tt.args.level, tt.args.msg, tt.args.args...)

			actual := map[string]interface{}{}
			tst.JSONUnmarshalBuffer(&out, &actual)
			out.Reset()
			tt.want(t, actual)
		})
	}
}

func Test_Logger_WithError(t *testing.T) {
	var out bytes.Buffer
	logger := newLogrusLogger(&out)
	err := errors.New(faker.Sentence())
	Logger(&logger).WithError(err).Error(context.TODO(), "Something failed")

	actual := map[string]interface{}{}
	tst.JSONUnmarshalBuffer(&out, &actual)
	assert.Equal(t, err.Error(), actual["error"])
	assert.Equal(t, "Something failed", actual["msg"])
}

func Test_Logger_WithData(t *testing.T) {
	var out bytes.Buffer
	logger := newLogrusLogger(&out)
	data := MsgData{"field1": faker.Word()}
	Logger(&logger).WithData(data).Info(context.TODO(), "Msg with data")

	actual := map[string]interface{}{}
	tst.JSONUnmarshalBuffer(&out, &actual)
	msgData := actual["msgData"].(map[string]interface{})
	assert.Equal(t, data["field1"], msgData["field1"])
}
