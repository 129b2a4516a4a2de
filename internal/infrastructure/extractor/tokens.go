package extractor

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

const tokenEncoding = "cl100k_base"

var (
	encoderOnce sync.Once
	encoder     *tiktoken.Tiktoken
	encoderErr  error
)

// getEncoder 使用离线 BPE 词表，只初始化一次
func getEncoder() (*tiktoken.Tiktoken, error) {
	encoderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
		encoder, encoderErr = tiktoken.GetEncoding(tokenEncoding)
	})
	return encoder, encoderErr
}

// CountTokens 统计 token 数，编码器不可用时按 4 字节一个 token 估算
func CountTokens(text string) int {
	enc, err := getEncoder()
	if err != nil || enc == nil {
		return (len(text) + 3) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
