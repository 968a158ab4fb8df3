package main

import (
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/detailkit/dtl"
	"github.com/detailkit/dtl/ezd"
)

// A toy job processor that emits a detail record per job, and serves the
// retained records over HTTP. Try:
//
//	go run . &
//	dtl -u localhost:8080/records recent -o prettyjson
//	dtl -u localhost:8080/records/stream tail -o ndjson
func main() {
	go func() {
		for i := 0; ; i++ {
			processJob(i)
			time.Sleep(250 * time.Millisecond)
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/records", ezd.Handler())
	mux.Handle("/records/stream", ezd.StreamHandler())

	log.Printf("http://localhost:8080/records")
	log.Fatal(http.ListenAndServe("localhost:8080", mux))
}

func processJob(id int) {
	d := ezd.New("jobs", dtl.LevelDebug, dtl.WithTiming)
	defer d.Close()

	d.Infof("job %d", id)

	s := d.Scopef("fetch")
	time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
	d.Debugf("fetched %d bytes", rand.Intn(10000))
	s.Exit()

	s = d.Scopef("transform")
	for i := 0; i < rand.Intn(3); i++ {
		d.Debugf("pass %d", i)
	}
	if rand.Float64() < 0.1 {
		d.Errorf("transform failed, using original")
	}
	s.Exit()

	d.Infof("done")
}
