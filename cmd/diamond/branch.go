package main

type branchCmd struct {
	Create  branchCreateCmd  `cmd:"" aliases:"c" help:"Create a new branch on top of the current one"`
	Track   branchTrackCmd   `cmd:"" aliases:"tr" help:"Track an existing branch"`
	Untrack branchUntrackCmd `cmd:"" aliases:"untr" help:"Stop tracking a branch"`
	Rename  branchRenameCmd  `cmd:"" aliases:"mv" help:"Rename a tracked branch"`
	Delete  branchDeleteCmd  `cmd:"" aliases:"d,rm" help:"Delete a tracked branch"`

	Freeze   branchFreezeCmd   `cmd:"" help:"Freeze a branch against mutation"`
	Unfreeze branchUnfreezeCmd `cmd:"" help:"Unfreeze a branch"`

	Onto    branchOntoCmd    `cmd:"" aliases:"move" help:"Move a branch onto a different base"`
	Restack branchRestackCmd `cmd:"" aliases:"r" help:"Restack a branch onto its recorded base"`

	Fold   branchFoldCmd   `cmd:"" help:"Fold a branch into its base"`
	Squash branchSquashCmd `cmd:"" help:"Squash a branch's commits into one"`
	Split  branchSplitCmd  `cmd:"" help:"Split a branch into two at a commit"`

	Modify modifyCmd `cmd:"" aliases:"m" help:"Amend the current branch's tip commit"`
	Absorb absorbCmd `cmd:"" help:"Amend the current branch's tip and restack branches above it"`
}
