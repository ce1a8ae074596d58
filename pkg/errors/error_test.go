package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeEmptyInput, "no bars supplied")
	suite.NotNil(err)
	suite.Equal(ErrCodeEmptyInput, err.Code)
	suite.Equal("no bars supplied", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeMissingField, "column %q absent from every row", "high")
	suite.NotNil(err)
	suite.Equal(ErrCodeMissingField, err.Code)
	suite.Equal(`column "high" absent from every row`, err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestWrapError() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeQueryFailed, "failed to execute query", cause)
	suite.NotNil(err)
	suite.Equal(ErrCodeQueryFailed, err.Code)
	suite.Equal("failed to execute query", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("underlying error")
	err := Wrapf(ErrCodeReadFailed, cause, "failed to read %s", "bars.csv")
	suite.NotNil(err)
	suite.Equal(ErrCodeReadFailed, err.Code)
	suite.Equal("failed to read bars.csv", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestErrorString() {
	err := New(ErrCodeEmptyInput, "no bars supplied")
	suite.Equal("[100] no bars supplied", err.Error())
}

func (suite *ErrorTestSuite) TestErrorStringWithCause() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeDataNotFound, "data not found", cause)
	suite.Equal("[200] data not found: underlying error", err.Error())
}

func (suite *ErrorTestSuite) TestUnwrap() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeDataNotFound, "data not found", cause)
	suite.Equal(cause, err.Unwrap())
}

func (suite *ErrorTestSuite) TestUnwrapNil() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.Nil(err.Unwrap())
}

func (suite *ErrorTestSuite) TestGetCode() {
	err := New(ErrCodeAmbiguousTimezone, "mixed naive and offset timestamps")
	suite.Equal(ErrCodeAmbiguousTimezone, GetCode(err))
}

func (suite *ErrorTestSuite) TestGetCodeFromWrapped() {
	cause := New(ErrCodeDataNotFound, "data not found")
	err := fmt.Errorf("outer: %w", cause)
	suite.Equal(ErrCodeDataNotFound, GetCode(err))
}

func (suite *ErrorTestSuite) TestGetCodeFromPlainError() {
	err := errors.New("plain error")
	suite.Equal(ErrCodeUnknown, GetCode(err))
}

func (suite *ErrorTestSuite) TestHasCode() {
	err := New(ErrCodeInvalidTimestamp, "cannot parse timestamp")
	suite.True(HasCode(err, ErrCodeInvalidTimestamp))
	suite.False(HasCode(err, ErrCodeEmptyInput))
}

func (suite *ErrorTestSuite) TestIsAndAs() {
	cause := New(ErrCodeDataNotFound, "data not found")
	err := fmt.Errorf("outer: %w", cause)
	suite.True(Is(err, cause))

	var target *Error
	suite.True(As(err, &target))
	suite.Equal(ErrCodeDataNotFound, target.Code)
}
