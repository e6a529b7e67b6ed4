package errs

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// 实时层错误码
const (
	CodeAuthentication = 1401 // 握手令牌无效/缺失
	CodeRoomNotJoined  = 1403 // 向未加入的房间发事件
	CodeDeliveryFail   = 1502 // 单连接推送失败
	CodeServerInternal = 1500
)

var (
	ErrAuthentication = NewCodeError(CodeAuthentication, "authentication failed")
	ErrRoomNotJoined  = NewCodeError(CodeRoomNotJoined, "room not joined")
	ErrDeliveryFail   = NewCodeError(CodeDeliveryFail, "delivery failed")
)

type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

// WithDetail 返回带补充信息的副本，原值不变。
func (e *CodeError) WithDetail(detail string) *CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: d}
}

// Wrap 附加堆栈
func (e *CodeError) Wrap() error {
	return errors.WithStack(e)
}

func (e *CodeError) WrapMsg(msg string) error {
	return errors.Wrap(e, msg)
}

func (e *CodeError) Is(err error) bool {
	var codeErr *CodeError
	if !errors.As(err, &codeErr) {
		return false
	}
	return codeErr.Code == e.Code
}

// IsCode 判断 err 链上是否携带指定错误码。
func IsCode(err error, code int) bool {
	var codeErr *CodeError
	if !errors.As(err, &codeErr) {
		return false
	}
	return codeErr.Code == code
}
