package gen

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"github.com/samkaj/maker/internal/msg"
	"golang.org/x/sync/errgroup"
)

// compileJob represents a single compilation job
type compileJob struct {
	src    string
	obj    string
	cflags []string
	cc     string
}

// linkJob represents the final link of the executable
type linkJob struct {
	objs    []string
	out     string
	ldflags []string
	cc      string
}

// NativeGen builds the target in-process instead of writing a build file.
// Compile jobs are independent and run in parallel.
type NativeGen struct {
	cc     string
	target Target
	jobs   int
	out    io.Writer
	outMu  sync.Mutex
	run    func(name string, args ...string) error
}

// printf serializes progress lines from concurrent jobs.
func (g *NativeGen) printf(format string, a ...any) {
	g.outMu.Lock()
	defer g.outMu.Unlock()
	fmt.Fprintf(g.out, format, a...)
}

func NewNativeGen() *NativeGen {
	g := &NativeGen{
		jobs: runtime.NumCPU(),
		out:  os.Stdout,
	}
	g.run = g.exec
	return g
}

// SetJobs limits the number of concurrent compile jobs.
func (g *NativeGen) SetJobs(n int) {
	if n > 0 {
		g.jobs = n
	}
}

func (g *NativeGen) SetCompiler(cc string) { g.cc = cc }
func (g *NativeGen) SetTarget(t Target)    { g.target = t }
func (g *NativeGen) BuildFile() string     { return "" }

// no build file needed
func (g *NativeGen) WriteVariables(*strings.Builder) {}
func (g *NativeGen) WriteRules(*strings.Builder)     {}

// Invoke performs the actual build. buildFile is unused.
func (g *NativeGen) Invoke(string) error {
	t := g.target
	for _, dir := range t.Dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create object directory: %w", err)
		}
	}

	compileJobs, err := g.planCompile()
	if err != nil {
		return fmt.Errorf("build planning failed: %w", err)
	}

	needsLink := len(compileJobs) > 0
	if !needsLink {
		needsLink, err = g.needsLink()
		if err != nil {
			return err
		}
	}
	if !needsLink {
		g.printf("maker: no work to do.\n")
		return nil
	}

	if err := runJobs(compileJobs, g.runCompileJob, g.jobs); err != nil {
		return fmt.Errorf("compilation failed: %w", err)
	}
	if err := g.runLinkJob(linkJob{
		objs:    t.Objects(),
		out:     t.Name,
		ldflags: t.Ldflags,
		cc:      g.cc,
	}); err != nil {
		return fmt.Errorf("linking failed: %w", err)
	}
	return nil
}

// planCompile selects the sources whose object is missing or older than the
// source or any header.
func (g *NativeGen) planCompile() ([]compileJob, error) {
	headersTime, err := newestModTime(g.target.Headers)
	if err != nil {
		return nil, err
	}

	var jobs []compileJob
	for _, src := range g.target.Sources {
		dirty, err := isObjectDirty(src, headersTime)
		if err != nil {
			return nil, fmt.Errorf("could not check status of %s: %w", src.Src, err)
		}
		if dirty {
			jobs = append(jobs, compileJob{
				src:    src.Src,
				obj:    src.Obj,
				cflags: g.target.Cflags,
				cc:     g.cc,
			})
		}
	}
	return jobs, nil
}

// needsLink reports whether the executable is missing or older than an object.
func (g *NativeGen) needsLink() (bool, error) {
	out, err := os.Stat(g.target.Name)
	if os.IsNotExist(err) {
		return true, nil
	} else if err != nil {
		return false, err
	}
	newest, err := newestModTime(g.target.Objects())
	if err != nil {
		return false, err
	}
	return newest > out.ModTime().UnixNano(), nil
}

func isObjectDirty(src Source, headersTime int64) (bool, error) {
	obj, err := os.Stat(src.Obj)
	if os.IsNotExist(err) {
		return true, nil
	} else if err != nil {
		return false, err
	}
	s, err := os.Stat(src.Src)
	if err != nil {
		if os.IsNotExist(err) {
			return true, fmt.Errorf("source file %s not found", src.Src)
		}
		return true, err
	}
	objTime := obj.ModTime().UnixNano()
	return s.ModTime().UnixNano() > objTime || headersTime > objTime, nil
}

func newestModTime(paths []string) (int64, error) {
	var newest int64
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return 0, err
		}
		newest = max(newest, info.ModTime().UnixNano())
	}
	return newest, nil
}

// runJobs runs jobs in parallel
func runJobs[T any](jobs []T, jobfunc func(job T) error, limit int) error {
	if len(jobs) == 0 {
		return nil
	}

	eg, _ := errgroup.WithContext(context.Background())
	eg.SetLimit(limit)

	for _, job := range jobs {
		eg.Go(func() error {
			return jobfunc(job)
		})
	}

	return eg.Wait()
}

// runCompileJob runs a single compilation job
func (g *NativeGen) runCompileJob(job compileJob) error {
	args := make([]string, 0, len(job.cflags)+4)
	args = append(args, job.cflags...)
	args = append(args, "-c", job.src, "-o", job.obj)

	g.printf("CC %s\n", job.src)
	return g.run(job.cc, args...)
}

// runLinkJob links all objects into the executable
func (g *NativeGen) runLinkJob(job linkJob) error {
	args := make([]string, 0, len(job.objs)+len(job.ldflags)+2)
	args = append(args, job.objs...)
	args = append(args, "-o", job.out)
	args = append(args, job.ldflags...)

	g.printf("LINK %s\n", job.out)
	return g.run(job.cc, args...)
}

func (g *NativeGen) exec(name string, args ...string) error {
	msg.Debug("%s %s", name, strings.Join(args, " "))
	cmd := exec.Command(name, args...)
	cmd.Stdout = g.out
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
