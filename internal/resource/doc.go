// Package resource 描述可缓存的远端 JSON 资源：资源种类（kind）的元数据注册表、
// 每种资源的加载策略，以及在各层之间传递的 Resource/Result 泛型类型。
//
// 资源种类需要：
//   1. 在 init() 中通过 MustRegister 注册 KindMetadata；
//   2. 声明默认 Policy（refresh 或 cache-first）以及是否需要数字 id；
//   3. 提供 []byte -> Result[T] 的解析函数，解析失败返回带 Outcome 的结果而不是 panic。
package resource
