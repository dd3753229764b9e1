package mmio

import (
	"testing"

	"github.com/hnj2/PSPEmu/internal/logger"
	"github.com/hnj2/PSPEmu/queue"
)

func newTestFile() (*RegisterFile, *queue.Queue, *int) {
	q := &queue.Queue{}
	drains := 0
	rf := &RegisterFile{
		Queues: []*queue.Queue{q},
		Drain:  func(int) { drains++ },
		Log:    logger.Discard(),
	}
	return rf, q, &drains
}

func TestWriteRunDoesNotDrainImmediately(t *testing.T) {
	rf, _, drains := newTestFile()
	rf.WritePrimary(QueueBase+RegControl, 4, queue.ControlRun)
	if *drains != 0 {
		t.Fatalf("drains = %d, want 0 (RUN write alone must not drain)", *drains)
	}
}

func TestReadQueueRegisterTriggersDrain(t *testing.T) {
	rf, _, drains := newTestFile()
	rf.WritePrimary(QueueBase+RegControl, 4, queue.ControlRun)
	rf.ReadPrimary(QueueBase+RegHead, 4)
	if *drains != 1 {
		t.Fatalf("drains = %d, want 1 (read must trigger deferred drain)", *drains)
	}
}

func TestWriteLeavingInterruptEnabledTriggersDrain(t *testing.T) {
	rf, _, drains := newTestFile()
	rf.WritePrimary(QueueBase+RegIen, 4, queue.IntCompletion)
	if *drains != 1 {
		t.Fatalf("drains = %d, want 1 (write enabling an interrupt must trigger deferred drain)", *drains)
	}
}

func TestControlNeverReadsBackRunThroughMMIO(t *testing.T) {
	rf, _, _ := newTestFile()
	rf.WritePrimary(QueueBase+RegControl, 4, queue.ControlRun)
	val, ok := rf.ReadPrimary(QueueBase+RegControl, 4)
	if !ok {
		t.Fatal("ReadPrimary rejected a valid access")
	}
	if val&queue.ControlRun != 0 {
		t.Fatal("RUN bit visible through MMIO control read")
	}
}

func TestRejectsNonWordWidth(t *testing.T) {
	rf, _, _ := newTestFile()
	if _, ok := rf.ReadPrimary(QueueBase+RegHead, 1); ok {
		t.Fatal("expected byte-width primary read to be rejected")
	}
	if ok := rf.WritePrimary(QueueBase+RegHead, 2, 0); ok {
		t.Fatal("expected half-word-width primary write to be rejected")
	}
}

func TestSecondaryWindow(t *testing.T) {
	rf, _, _ := newTestFile()
	rf.WrittenLast = func() uint64 { return 42 }
	if val, ok := rf.ReadSecondary(SecondaryWrittenLast, 4); !ok || val != 42 {
		t.Fatalf("ReadSecondary(WrittenLast) = (%d, %v), want (42, true)", val, ok)
	}
	if val, ok := rf.ReadSecondary(SecondaryPollBit, 4); !ok || val != 1 {
		t.Fatalf("ReadSecondary(PollBit) = (%d, %v), want (1, true)", val, ok)
	}
}

func TestBelowQueueBaseIsNoopNotCrash(t *testing.T) {
	rf, _, drains := newTestFile()
	if ok := rf.WritePrimary(0x10, 4, 0xffffffff); !ok {
		t.Fatal("write below QueueBase should be accepted as a no-op")
	}
	if *drains != 0 {
		t.Fatal("write below QueueBase must not drain any queue")
	}
	if val, ok := rf.ReadPrimary(0x10, 4); !ok || val != 0 {
		t.Fatalf("ReadPrimary below QueueBase = (%d, %v), want (0, true)", val, ok)
	}
}
