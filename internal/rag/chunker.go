package rag

import (
	"strings"
)

// Chunk 表示分块后的文本结构
type Chunk struct {
	Index int
	Text  string
}

// Chunker 文本分块器
// 按固定窗口长度加重叠切分，窗口内存在自然边界（段落/句子/单词）时
// 优先在边界断开，否则按字符硬切
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker 创建分块器
func NewChunker(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 100
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: overlap,
	}
}

// ChunkSize 返回窗口长度
func (c *Chunker) ChunkSize() int {
	return c.chunkSize
}

// ChunkOverlap 返回相邻窗口重叠长度
func (c *Chunker) ChunkOverlap() int {
	return c.chunkOverlap
}

// Split 将文本切分为多个chunk
// 对相同输入始终产生相同切分，不产生空白chunk
func (c *Chunker) Split(text string) []Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var chunks []Chunk

	start := 0
	for start < len(runes) {
		end := start + c.chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else if b := c.lastBoundary(runes, start, end); b > 0 {
			end = b
		}

		segment := string(runes[start:end])
		if strings.TrimSpace(segment) != "" {
			chunks = append(chunks, Chunk{
				Index: len(chunks),
				Text:  segment,
			})
		}

		if end == len(runes) {
			break
		}

		next := end - c.chunkOverlap
		if next <= start {
			// 保证向前推进
			next = start + 1
		}
		start = next
	}

	return chunks
}

// lastBoundary 在(start+overlap, end]内从后向前找最近的自然边界
// 返回边界后一位置，没有可用边界时返回0
// 边界必须落在start+overlap之后，保证下一窗口起点严格前移
func (c *Chunker) lastBoundary(runes []rune, start, end int) int {
	min := start + c.chunkOverlap + 1

	// 段落边界
	for i := end; i > min; i-- {
		if runes[i-1] == '\n' && i >= 2 && runes[i-2] == '\n' {
			return i
		}
	}
	// 换行边界
	for i := end; i > min; i-- {
		if runes[i-1] == '\n' {
			return i
		}
	}
	// 句子边界
	for i := end; i > min; i-- {
		if isSentenceEnd(runes[i-1]) {
			return i
		}
	}
	// 单词边界
	for i := end; i > min; i-- {
		if runes[i-1] == ' ' || runes[i-1] == '\t' {
			return i
		}
	}

	return 0
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？', ';', '；':
		return true
	}
	return false
}
