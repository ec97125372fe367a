// Command relmap 检查并执行 relmap.yaml 中声明的表关联。
//
// 子命令：
//   - inspect: 输出每张表解析后的外键、属性与中间表
//   - sql:     输出主查询（可连接的关联已转换为 JOIN）
//   - fetch:   执行查询并预加载关联，以 YAML 输出
//   - delete:  按主键级联删除，可选在事务中执行
//   - config:  输出合并后的配置
//
// 用法：
//
//	relmap [--config relmap.yaml] [-v] [--trace] <command>
package main

func main() {
	Execute()
}
