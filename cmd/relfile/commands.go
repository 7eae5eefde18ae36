package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/infinivision/relfile/config"
	"github.com/infinivision/relfile/errmsg"
	"github.com/infinivision/relfile/record"
	"github.com/infinivision/relfile/stack"
	"github.com/nnsgmsone/damrey/logger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

type env struct {
	cfg config.Config
	log logger.Log
	r   record.File
}

type command struct {
	args  int // required arguments
	usage string
	run   func(*env, []string) error
}

type match struct {
	num  int64
	data []byte
}

var commands = map[string]command{
	"create": {0, "create the file if needed and show its header", info},
	"info":   {0, "show the header", info},
	"add":    {1, "add DATA to the first free record", add},
	"get":    {1, "print record N", get},
	"put":    {2, "overwrite record N with DATA", put},
	"del":    {1, "delete record N", del},
	"find":   {1, "print the number of the first record equal to DATA", find},
	"search": {1, "list records containing DATA", search},
	"dump":   {0, "list every slot, deleted ones included", dump},
	"extend": {1, "append N free records", extend},
	"remove": {0, "delete the file", remove},
	"stress": {2, "run WORKERS users doing N get/put rounds on record 1", stress},
}

func run(cfg config.Config, log logger.Log, cmd command, args []string) error {
	r, err := open(cfg, log)
	if err != nil {
		return err
	}
	err = cmd.run(&env{cfg: cfg, log: log, r: r}, args)
	if cerr := r.Close(); err == nil && !errors.Is(cerr, errmsg.NotOpen) {
		err = cerr
	}
	return err
}

func open(cfg config.Config, log logger.Log) (record.File, error) {
	r, err := record.New(cfg.Path, cfg.RecordSize, record.Options{Records: cfg.Records, Log: log})
	if err != nil {
		return nil, err
	}
	if err := r.SetRetries(cfg.Retries); err != nil {
		return nil, err
	}
	if err := r.SetTimeout(cfg.Timeout); err != nil {
		return nil, err
	}
	if err := r.Open(unix.O_RDWR, cfg.Mode); err != nil {
		return nil, err
	}
	return r, nil
}

func recnum(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errmsg.Trace(errmsg.InvalidParameter)
	}
	return n, nil
}

func trim(data []byte) []byte {
	return bytes.TrimRight(data, "\x00")
}

func info(e *env, _ []string) error {
	fmt.Println(renderHeader(e.r.Path(), e.r.Header()))
	return nil
}

func add(e *env, args []string) error {
	n, err := e.r.Add([]byte(args[0]))
	if err != nil {
		return err
	}
	fmt.Println(n)
	return nil
}

func get(e *env, args []string) error {
	n, err := recnum(args[0])
	if err != nil {
		return err
	}
	data, err := e.r.Get(n)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", trim(data))
	return nil
}

func put(e *env, args []string) error {
	n, err := recnum(args[0])
	if err != nil {
		return err
	}
	return e.r.Put(n, []byte(args[1]))
}

func del(e *env, args []string) error {
	n, err := recnum(args[0])
	if err != nil {
		return err
	}
	return e.r.Del(n)
}

func extend(e *env, args []string) error {
	n, err := recnum(args[0])
	if err != nil {
		return err
	}
	if err := e.r.Extend(n); err != nil {
		return err
	}
	return info(e, nil)
}

func find(e *env, args []string) error {
	n, err := e.r.Find([]byte(args[0]), func(wanted, candidate []byte) bool {
		return bytes.Equal(wanted, trim(candidate))
	})
	if err != nil {
		return err
	}
	fmt.Println(n)
	return nil
}

func search(e *env, args []string) error {
	results := stack.New()
	contains := func(wanted, candidate []byte) bool {
		return bytes.Contains(candidate, wanted)
	}
	err := e.r.Search([]byte(args[0]), contains, func(f record.File, candidate []byte, results stack.Stack) error {
		results.Push(match{f.Record(), candidate})
		return nil
	}, results)
	if err != nil {
		return err
	}
	if results.IsEmpty() {
		return errmsg.Trace(errmsg.NotExist)
	}
	var slots []record.Slot
	for _, v := range results.Drain() {
		m := v.(match)
		slots = append(slots, record.Slot{Num: m.num, Data: m.data})
	}
	fmt.Println(renderSlots(slots))
	return nil
}

func dump(e *env, _ []string) error {
	var slots []record.Slot

	for s, err := e.r.First(); ; s, err = e.r.Next() {
		if errors.Is(err, errmsg.ScanEnd) {
			break
		}
		if err != nil {
			return err
		}
		slots = append(slots, s)
	}
	fmt.Println(renderHeader(e.r.Path(), e.r.Header()))
	fmt.Println(renderSlots(slots))
	return nil
}

func remove(e *env, _ []string) error {
	return e.r.Remove()
}

// stress makes each worker open its own handle on the file, like separate
// processes would, and rewrite record 1 with its own letter. A record that
// ever reads back mixed is reported as torn.
func stress(e *env, args []string) error {
	workers, err := strconv.Atoi(args[0])
	if err != nil || workers <= 0 {
		return errmsg.Trace(errmsg.InvalidParameter)
	}
	rounds, err := strconv.Atoi(args[1])
	if err != nil || rounds <= 0 {
		return errmsg.Trace(errmsg.InvalidParameter)
	}
	dashes := bytes.Repeat([]byte{'-'}, e.cfg.RecordSize)
	switch _, err := e.r.Get(1); {
	case err == nil:
		if err := e.r.Put(1, dashes); err != nil {
			return err
		}
	case errors.Is(err, errmsg.DeletedRecord), errors.Is(err, errmsg.InvalidParameter):
		if e.r.Records() == 0 {
			if err := e.r.Extend(1); err != nil {
				return err
			}
		}
		// a tombstoned record 1 is the first free slot, Add lands there
		if _, err := e.r.Add(dashes); err != nil {
			return err
		}
	default:
		return err
	}
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		c := byte('a' + i%26)
		g.Go(func() error {
			r, err := open(e.cfg, e.log)
			if err != nil {
				return err
			}
			defer r.Close()
			payload := bytes.Repeat([]byte{c}, e.cfg.RecordSize)
			for j := 0; j < rounds; j++ {
				data, err := r.Get(1)
				if err != nil {
					return err
				}
				if bytes.Count(data, data[:1]) != len(data) {
					return fmt.Errorf("torn record 1: %q", data)
				}
				if err := r.Put(1, payload); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%d workers x %d rounds: no torn records\n", workers, rounds)
	return nil
}
