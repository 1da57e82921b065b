package checker

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/terminology"
)

func benchEngine(b *testing.B, prefilter bool, opts ...Option) *Engine {
	b.Helper()
	rs, err := terminology.Compile(defs(prefilter))
	if err != nil {
		b.Fatal(err)
	}
	return New(rs, opts...)
}

func BenchmarkCheck(b *testing.B) {
	texts := map[string]string{
		"clean":    "Configure the network card before you start the installation.",
		"findings": "Send an e-mail e-mail to the admin. You need to login before you start.",
		"long":     strings.Repeat("Snapshots are taken before and after every update. ", 50),
	}
	for _, prefilter := range []bool{true, false} {
		e := benchEngine(b, prefilter)
		for name, text := range texts {
			b.Run(fmt.Sprintf("%s/prefilter=%t", name, prefilter), func(b *testing.B) {
				u := Unit{Raw: text}
				b.ReportAllocs()
				b.SetBytes(int64(len(text)))
				for i := 0; i < b.N; i++ {
					if _, err := e.Check(u); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

func BenchmarkCheckAll(b *testing.B) {
	units := make([]Unit, 500)
	for i := range units {
		units[i] = Unit{Raw: fmt.Sprintf("Paragraph %d explains how to login to the e-mail server.", i), Line: i + 1}
	}
	for _, workers := range []int{1, 4, 16} {
		e := benchEngine(b, true, WithWorkers(workers))
		b.Run(fmt.Sprintf("workers_%d", workers), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := e.CheckAll(context.Background(), units); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkCheckParallel(b *testing.B) {
	e := benchEngine(b, true)
	u := Unit{Raw: "Send an e-mail to the admin. You need to login before you start."}
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := e.Check(u); err != nil {
				b.Error(err)
				return
			}
		}
	})
}
