package domain

import "errors"

// 领域错误定义
var (
	// ErrMalformedFile 上传内容无法解析为表格数据
	ErrMalformedFile = errors.New("malformed file: cannot parse tabular data")
	// ErrInvalidTransition 状态机守卫失败，状态未变更
	ErrInvalidTransition = errors.New("invalid report status transition")
	// ErrInvalidInput 输入不满足业务规则
	ErrInvalidInput = errors.New("invalid input")
	// ErrAccessDenied 角色或机构归属不匹配
	ErrAccessDenied = errors.New("access denied")
	// ErrNotFound 报告不存在
	ErrNotFound = errors.New("report not found")
	// ErrFileTooLarge 上传文件超过大小上限
	ErrFileTooLarge = errors.New("file exceeds size limit")
	// ErrUnsupportedFileType 文件扩展名不被接受
	ErrUnsupportedFileType = errors.New("unsupported file type")
)
