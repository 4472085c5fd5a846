package testing

import (
	"os"
	"path/filepath"
	"testing"
)

// RegistryHeader is the preamble of the IEEE MA-L text file.
const RegistryHeader = "OUI/MA-L                                                    Organization                                 \n" +
	"company_id                                                  Organization                                 \n" +
	"                                                            Address                                      "

// RegistrySample is a small registry dump in the IEEE text layout with
// three assignments after the preamble.
const RegistrySample = RegistryHeader + "\n\n" +
	"28-6F-B9   (hex)\t\tNokia Shanghai Bell Co., Ltd.\n" +
	"286FB9     (base 16)\t\tNokia Shanghai Bell Co., Ltd.\n" +
	"\t\t\t\tNo.388 Ning Qiao Road,Jin Qiao Pudong Shanghai\n" +
	"\t\t\t\tShanghai   Shanghai   201206\n" +
	"\t\t\t\tCN\n" +
	"\n" +
	"08-EA-44   (hex)\t\tExtreme Networks, Inc.\n" +
	"08EA44     (base 16)\t\tExtreme Networks, Inc.\n" +
	"\t\t\t\t6480 Via Del Oro\n" +
	"\t\t\t\tSan Jose  CA  95119\n" +
	"\t\t\t\tUS\n" +
	"\n" +
	"F4-BD-9E   (hex)\t\tCisco Systems, Inc\n" +
	"F4BD9E     (base 16)\t\tCisco Systems, Inc\n" +
	"\t\t\t\t80 West Tasman Drive\n" +
	"\t\t\t\tSan Jose  CA  94568\n" +
	"\t\t\t\tUS\n"

// RegistrySampleCount is the number of assignments in RegistrySample.
const RegistrySampleCount = 3

// WriteFile writes content to name inside a fresh temporary directory and
// returns the full path.
func WriteFile(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
