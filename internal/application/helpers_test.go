package application

import "testing"

func TestOfflineUUID(t *testing.T) {
	// Known derivation for the name "Notch" on offline-mode servers.
	if got := OfflineUUID("Notch").String(); got != "b50ad385-829d-3141-a216-7e7d7539ba7f" {
		t.Errorf("OfflineUUID(Notch) = %s", got)
	}

	if OfflineUUID("steve") != OfflineUUID("steve") {
		t.Error("derivation is not stable")
	}
	if OfflineUUID("steve") == OfflineUUID("Steve") {
		t.Error("derivation should be case sensitive")
	}

	id := OfflineUUID("steve")
	if v := id.Version(); v != 3 {
		t.Errorf("version = %d, want 3", v)
	}
}
