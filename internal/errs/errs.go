// 包 errs 定义内部错误分类：传输失败/解析失败/加密失败/认证失败。
// 底层辅助函数返回带具体分类的错误（%w 包装），
// 编排层对外只暴露有无结果，内部仍可用 errors.Is 区分。
package errs

import "errors"

var (
	// ErrTransport 请求执行器未返回数据或状态码非 2xx。
	ErrTransport = errors.New("transport failure")
	// ErrExtraction 期望的标记/JSON/字段缺失或格式错误。
	ErrExtraction = errors.New("extraction error")
	// ErrCrypto 公钥无法解析。
	ErrCrypto = errors.New("crypto error")
	// ErrAuthentication 登录握手未到达已认证状态。
	ErrAuthentication = errors.New("authentication failure")
)
