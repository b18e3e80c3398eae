package policy

// Builtin returns the built-in classification policy.
//
// These entries are always active unless the user opts into replacing them;
// config entries normally extend this set. The lists track known shell
// surfaces per OS release and are expected to need revision over time.
func Builtin() *Ruleset {
	return &Ruleset{
		ClassDenylist: []string{
			// Desktop background containers.
			"Progman",
			"WorkerW",
			// Task switcher surfaces.
			"MultitaskingViewFrame",
			"XamlExplorerHostIslandWindow",
			"TaskSwitcherWnd",
			// IME helpers.
			"IME",
			"MSCTFIME UI",
			// Lock screen host.
			"LockScreenBackstopFrame",
			// Taskbars.
			"Shell_TrayWnd",
			"Shell_SecondaryTrayWnd",
		},
		ProcessDenylist: []string{
			// Shell experience hosts.
			"ShellExperienceHost.exe",
			"StartMenuExperienceHost.exe",
			// Search UI hosts.
			"SearchHost.exe",
			"SearchApp.exe",
			"SearchUI.exe",
			// Command-palette style floating helpers.
			"PowerToys.PowerLauncher.exe",
			"LockApp.exe",
			"TextInputHost.exe",
		},
		DesktopClasses: []string{
			"Progman",
			"WorkerW",
			"SHELLDLL_DefView",
			"SysListView32",
		},
		Persistent: []PersistentRule{
			// Conferencing floating call surfaces that must survive switches.
			{Executable: "Zoom.exe", TitleContains: "ZMonitorNumberIndicator"},
			{Executable: "Zoom.exe", TitleContains: "zoom floating"},
			{Executable: "ms-teams.exe", TitleContains: "call"},
		},
	}
}
