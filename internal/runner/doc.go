// Package runner 负责执行单个系统测试并对结果分类。
//
// ExecRunner 把每个测试作为独立子进程运行:
//
//	<executable> <exec_args...> <test path> <test args...>
//
// 退出码 0 为通过，约定的跳过退出码为跳过，其余为失败；
// 无法启动或超过单测超时记为崩溃(按失败计数)；
// 父 context 被取消(中断/看门狗)时记为跳过。
package runner
