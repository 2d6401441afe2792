// Package chaos はライン整形に障害を注入する機能を提供する。
//
// Injector は line.JustifyFunc をラップし、指定した行番号で遅延・エラー・
// panic を発生させる。ワーカー障害やキャンセルの経路を検証するために使用される。
//
// # 障害タイプ
//
// - Delay: 整形を遅らせる（ctx のキャンセルで中断）
// - Fail: ErrInjected を返す
// - Panic: ワーカー内で panic する
//
// # 使用例
//
//	config := chaos.DefaultConfig()
//	config.DelayLines = []int{0}
//	config.FailLines = []int{3}
//
//	injector := chaos.New(config)
//	eng.SetJustifier(injector.Wrap(line.Justifier()))
package chaos
