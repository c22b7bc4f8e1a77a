// visual-search 以图搜图：调用外部编码服务生成 embedding，并在候选集中检索。
//
//	visual-search [-config path] [-metric inner_product|cosine] <command> <args...>
//
// 命令：encode_image / encode_text / find_similar / batch_encode / config
package main

import "github.com/rushteam/marketrec/cli"

func main() {
	cli.VisualSearch(nil).Main()
}
