/*
Package archive discovers the DICOM files inside zip and tar archives.

A Scanner walks the members of an archive in their native order: directory order for zip, and
sequential order for tar. It yields only the members that start with the DICOM preamble and
magic word. Directories, DICOMDIR index files and members without the magic word are skipped and
logged. The scanner never fails because of a skipped member. A stream that is not a well formed
archive of the declared kind fails the scan with an *InvalidContainerError.

	scanner, err := archive.NewScanner(data, archive.TarGzip, log)
	if err != nil {
		return err
	}
	defer scanner.Close()
	for {
		member, err := scanner.Next()
		if err == io.EOF {
			break
		}
		...
	}
*/
package archive
