// Package types 定义 ragcheck 共享的数据模型与统一错误类型.
//
// 验证记录（ValidationRecord）贯穿整个流程：输入方创建、编排器派发、
// 指标组件填充、输出方消费。所有组件间只传递本包类型与普通配置值.
package types
