//go:build linux

package fs

import (
	"bufio"
	"reflect"
	"strings"
	"testing"
)

func TestParseMounts(t *testing.T) {
	mounts := `/dev/sda1 / ext4 rw 0 0
proc /proc proc rw 0 0
tmpfs /run tmpfs rw 0 0
/dev/sda2 /home ext4 rw 0 0
/dev/sdb1 /media/usb vfat rw 0 0
/dev/sdc1 /mnt/backup ext4 rw 0 0
/dev/sdc1 /mnt/backup ext4 rw 0 0
/dev/sdd1 /data xfs rw 0 0
/dev/loop0 /snap/core squashfs ro 0 0
`
	got := parseMounts(bufio.NewScanner(strings.NewReader(mounts)))
	want := []Drive{
		{Name: "Home", Path: "/home"},
		{Name: "usb", Path: "/media/usb"},
		{Name: "backup", Path: "/mnt/backup"},
		{Name: "/data", Path: "/data"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseMounts:\n got %v\nwant %v", got, want)
	}
}

func TestListDrivesIncludesRoot(t *testing.T) {
	drives := ListDrives()
	if len(drives) == 0 || drives[0].Path != "/" {
		t.Errorf("expected root first, got %v", drives)
	}
}
