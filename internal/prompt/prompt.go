// Package prompt 提供交互模式下的简单问答。
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Prompter 在同一个输入流上连续提问；不能为同一个 io.Reader 创建多个 Prompter。
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Line 打印 question 并读取一行（去掉首尾空白）。输入结束时返回已读内容与 io.EOF。
func (p *Prompter) Line(question string) (string, error) {
	if _, err := fmt.Fprint(p.out, question); err != nil {
		return "", err
	}
	s, err := p.in.ReadString('\n')
	s = strings.TrimSpace(s)
	if err != nil {
		if errors.Is(err, io.EOF) && s != "" {
			return s, nil
		}
		return s, err
	}
	return s, nil
}

// YesNo 询问是/否问题，直到得到 y/yes/n/no 或空行（空行取 def）。
// 输入结束时返回 def。
func (p *Prompter) YesNo(question string, def bool) (bool, error) {
	hint := "(y/N)"
	if def {
		hint = "(Y/n)"
	}
	for {
		ans, err := p.Line(question + " " + hint + ": ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				return def, nil
			}
			return false, err
		}
		switch strings.ToLower(ans) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		case "":
			return def, nil
		}
		if _, err := fmt.Fprintln(p.out, "请回答 y（是）或 n（否）"); err != nil {
			return false, err
		}
	}
}
