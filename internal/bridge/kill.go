package bridge

import (
	"github.com/shirou/gopsutil/v3/process"
)

// KillTree kills pid and every descendant, deepest first.
func KillTree(pid int) error {
	root, err := process.NewProcess(int32(pid))
	if err != nil {
		return err
	}
	killDescendants(root.Pid, childIndex())
	return root.Kill()
}

// childIndex maps parent pids to their children from one process listing.
func childIndex() map[int32][]*process.Process {
	index := make(map[int32][]*process.Process)
	procs, err := process.Processes()
	if err != nil {
		return index
	}
	for _, p := range procs {
		ppid, err := p.Ppid()
		if err != nil {
			continue
		}
		index[ppid] = append(index[ppid], p)
	}
	return index
}

func killDescendants(pid int32, index map[int32][]*process.Process) {
	for _, child := range index[pid] {
		killDescendants(child.Pid, index)
		_ = child.Kill()
	}
}
