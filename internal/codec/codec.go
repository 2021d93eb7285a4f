// 包 codec 提供登录与请求所需的编码工具：
// - 密码 RSA 加密（明文 RSA，e=65537，模数来自预登录返回的十六进制公钥）
// - 百分号编码 + base64 的双重包装（登录表单的 su 字段）
// - 毫秒时间戳（防缓存参数）
package codec

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"go-weiboapi/internal/errs"
)

const publicExponent = 65537

// PublicKey 为预登录下发的公钥：Modulus 为十六进制模数，Version 即 rsakv。
// Version 只标识密钥版本，随表单回传，不参与加密运算。
type PublicKey struct {
	Modulus string
	Version string
}

// EncryptPassword 构造 "servertime\tnonce\npassword" 并以明文 RSA 加密，返回小写十六进制密文。
// 密文按模数字节长度左侧补零，因此长度恒为偶数；相同输入得到相同输出。
func EncryptPassword(password, servertime, nonce string, key PublicKey) (string, error) {
	hexKey := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(key.Modulus)), "0x")
	n, ok := new(big.Int).SetString(hexKey, 16)
	if !ok || n.Sign() <= 0 {
		return "", fmt.Errorf("%w: parse public key %q", errs.ErrCrypto, key.Modulus)
	}
	msg := servertime + "\t" + nonce + "\n" + password
	m := new(big.Int).SetBytes([]byte(msg))
	c := new(big.Int).Exp(m, big.NewInt(publicExponent), n)
	out := c.FillBytes(make([]byte, (n.BitLen()+7)/8))
	return hex.EncodeToString(out), nil
}

// QuoteBase64 百分号编码 → base64 → 再次百分号编码。直接拼入 URL 时使用。
func QuoteBase64(text string) string {
	return Quote(Base64Quoted(text))
}

// Base64Quoted 百分号编码后 base64，外层编码交给表单编码器完成。
func Base64Quoted(text string) string {
	return base64.StdEncoding.EncodeToString([]byte(Quote(text)))
}

// Quote 百分号编码，保留字母数字、"_.-~" 与 "/"。
func Quote(text string) string {
	var b strings.Builder
	for i := 0; i < len(text); i++ {
		c := text[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("_.-~/", c) >= 0
}

// Timestamp 返回当前毫秒时间戳字符串（不含小数点）。
func Timestamp() string { return TimestampAt(time.Now()) }

// TimestampAt 将给定时间格式化为毫秒时间戳字符串。
func TimestampAt(t time.Time) string { return strconv.FormatInt(t.UnixMilli(), 10) }
