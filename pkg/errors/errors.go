package errors

import "errors"

// ── 全局错误分类（planner 客户端与服务端共用） ──

var (
	// ErrValidation 输入校验失败（如活动名称为空），操作中止且状态不变
	ErrValidation = errors.New("参数校验失败")

	// ErrInvalidSlot 时间格不在固定的 星期 × 小时 枚举内，属于调用方编程错误
	ErrInvalidSlot = errors.New("无效的时间格")

	// ErrPersistence 本地缓存写入失败；内存状态不回滚
	ErrPersistence = errors.New("本地缓存写入失败")

	// ErrRemoteUnavailable 远端存储不可用；只记录日志，不向调用方抛出
	ErrRemoteUnavailable = errors.New("远端存储不可用")

	// ErrNotFound 远端记录不存在（HTTP 404）
	ErrNotFound = errors.New("记录不存在")
)
