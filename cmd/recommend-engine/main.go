// recommend-engine 为 marketplace 后端提供推荐结果。
//
//	recommend-engine [-config path] [-filter expr] [-weight w] <command> <args...>
//
// 命令：train / recommend / similar_products / popular / similar_users / config
package main

import "github.com/rushteam/marketrec/cli"

func main() {
	cli.RecommendEngine().Main()
}
