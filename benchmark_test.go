package dtl_test

import (
	"testing"

	"github.com/detailkit/dtl"
)

func BenchmarkDetailer(b *testing.B) {
	sink := dtl.SinkFunc(func(dtl.Level, string) {})

	cycle := func(d *dtl.Detailer) {
		d.Infof("it does something")
		s := d.Scopef("suspended")
		d.Infof("it does something else")
		d.Infof("it does something else again")
		s.Exit()
		d.Flush()
	}

	b.Run("disabled", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			cycle(dtl.New(dtl.LevelOff, dtl.WithTiming).SetSink(sink))
		}
	})

	b.Run("enabled no time", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			cycle(dtl.New(dtl.LevelInfo, dtl.WithoutTiming).SetSink(sink))
		}
	})

	b.Run("enabled with time", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			cycle(dtl.New(dtl.LevelInfo, dtl.WithTiming).SetSink(sink))
		}
	})

	b.Run("cached enabled with time", func(b *testing.B) {
		d := dtl.New(dtl.LevelInfo, dtl.WithTiming).SetSink(sink)
		for i := 0; i < b.N; i++ {
			d.Reset()
			cycle(d)
		}
	})
}

func BenchmarkDisabledLine(b *testing.B) {
	d := dtl.New(dtl.LevelOff, dtl.WithTiming)

	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		d.Infof("it does something")
	}
}
