package util

import "errors"

// 引擎的三类错误：内容缺失、状态机误用、持久化失败。
// 持久化失败不在这里定义——仓库层的错误原样向上传递，不重试不回滚，
// 会话可以从最后一次成功写入的快照恢复。
var (
	ErrUserNotFound    = errors.New("用户不存在")
	ErrEmailRegistered = errors.New("该邮箱已被注册")

	// ErrNotFound 内容查找未命中（课程/语法点/词汇/例句/练习题不存在）
	ErrNotFound = errors.New("content not found")

	// ErrInvalidState 对错误的会话步骤发起操作，或会话已终结
	ErrInvalidState = errors.New("operation not valid in current session state")

	// ErrSessionCompleted 会话已完成，禁止继续推进或作答
	ErrSessionCompleted = errors.New("session already completed")

	// ErrStepExhausted 当前步骤的题目已全部作答
	ErrStepExhausted = errors.New("no remaining items in current step")

	// ErrNoLessonContent 目标课程没有语法内容，无法定位进度
	ErrNoLessonContent = errors.New("lesson has no grammar content")
)
